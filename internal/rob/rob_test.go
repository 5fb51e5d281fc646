package rob

import "testing"

func TestAllocFullCommitContiguity(t *testing.T) {
	r := New(2)
	if r.Full() || !r.Empty() {
		t.Fatal("fresh ROB should be empty and not full")
	}
	tag0 := r.Alloc(Entry{Type: EntryRegister, Dest: 1})
	tag1 := r.Alloc(Entry{Type: EntryRegister, Dest: 2})
	if tag0 != 0 || tag1 != 1 {
		t.Fatalf("tags = %d,%d, want 0,1", tag0, tag1)
	}
	if !r.Full() {
		t.Fatal("ROB with capacity 2 and 2 allocs should be full")
	}

	r.At(tag0).Ready = true
	r.At(tag0).Value = 42
	e := r.CommitHead()
	if e.Dest != 1 || e.Value != 42 {
		t.Fatalf("commit head = %+v, want Dest=1 Value=42", e)
	}
	if r.Full() {
		t.Fatal("ROB should have a free slot after one commit")
	}

	tag2 := r.Alloc(Entry{Type: EntryRegister, Dest: 3})
	if tag2 != 0 {
		t.Fatalf("tag2 = %d, want 0 (wrapped around)", tag2)
	}
}
