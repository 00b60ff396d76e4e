package value

// ObjString is an immutable, interned string value. Two ObjString objects
// holding the same bytes are never both reachable: see package table's
// string-interning support and the VM's InternString, which guarantee
// value equality on strings is reference equality.
type ObjString struct {
	Header
	chars string
	hash  uint32
}

var _ Obj = (*ObjString)(nil)

// NewString constructs an ObjString. Callers that want interning (almost
// always the right choice) should go through the VM's InternString instead
// of calling this directly.
func NewString(s string) *ObjString {
	return &ObjString{Header: Header{Kind: KindString}, chars: s, hash: FNV1a(s)}
}

func (s *ObjString) String() string { return s.chars }
func (s *ObjString) Truthy() bool   { return true }

// Chars returns the string's raw byte content.
func (s *ObjString) Chars() string { return s.chars }

// Hash returns the string's precomputed FNV-1a hash, used both to bucket
// it in the intern table and to seed probe sequences in package table.
func (s *ObjString) Hash() uint32 { return s.hash }

// FNV1a computes the 32-bit FNV-1a hash of s, used both to bucket strings in
// the intern table and to seed the hash table's probe sequence.
func FNV1a(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
