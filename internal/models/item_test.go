package models

import "testing"

func TestItemTypesStableOrder(t *testing.T) {
	want := []ItemType{ItemTypeStream, ItemTypeVideo, ItemTypeClip}
	for i := 0; i < 5; i++ {
		got := ItemTypes()
		if len(got) != len(want) {
			t.Fatalf("expected %d types, got %d", len(want), len(got))
		}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("iteration %d: expected %s at %d, got %s", i, want[j], j, got[j])
			}
		}
	}
}

func TestItemTypesReturnsCopy(t *testing.T) {
	a := ItemTypes()
	a[0] = ItemType("mutated")
	b := ItemTypes()
	if b[0] != ItemTypeStream {
		t.Fatalf("mutating the returned slice leaked into the canonical order")
	}
}

func TestItemTypeValid(t *testing.T) {
	for _, tt := range ItemTypes() {
		if !tt.Valid() {
			t.Errorf("expected %s to be valid", tt)
		}
	}
	if ItemType("podcast").Valid() {
		t.Error("unknown type reported valid")
	}
}
