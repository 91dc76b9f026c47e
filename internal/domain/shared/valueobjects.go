package shared

import (
	"encoding/binary"
	"encoding/hex"
	"io"
	"math"
	"regexp"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// ═══════════════════════════════════════════════════════════════════════════
// Address Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Address identifies an actor or an asset: a learner, the authority, a
// minter, a token mint, a credential collection. The ledger treats it as an
// opaque key; proving control of it happens outside the core.
type Address string

var addressPattern = regexp.MustCompile(`^[A-Za-z0-9_\-:.]{1,64}$`)

// IsValid checks the address format.
func (a Address) IsValid() bool {
	return addressPattern.MatchString(string(a))
}

// String returns the address as a string.
func (a Address) String() string {
	return string(a)
}

// IsZero reports whether a is empty.
func (a Address) IsZero() bool {
	return a == ""
}

// NewAddress validates and creates an Address.
func NewAddress(s string) (Address, error) {
	a := Address(strings.TrimSpace(s))
	if !a.IsValid() {
		return "", ErrInvalidAddress.Withf("%q", s)
	}
	return a, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Derived keys
// ═══════════════════════════════════════════════════════════════════════════

// DeriveKey hashes a namespace and its parts into a stable 32-byte hex key.
// Parts are length-prefixed so ("ab","c") and ("a","bc") never collide.
// Storage uses it for composite identities such as (achievement, recipient).
func DeriveKey(namespace string, parts ...string) string {
	h, _ := blake2b.New256(nil)
	writePart(h, namespace)
	for _, p := range parts {
		writePart(h, p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DeriveAddress is DeriveKey truncated to an Address.
func DeriveAddress(namespace string, parts ...string) Address {
	return Address(DeriveKey(namespace, parts...)[:44])
}

func writePart(w io.Writer, s string) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(s)))
	_, _ = w.Write(n[:])
	_, _ = w.Write([]byte(s))
}

// ═══════════════════════════════════════════════════════════════════════════
// Checked integer arithmetic
// ═══════════════════════════════════════════════════════════════════════════

// AddU32 returns a+b and false on overflow.
func AddU32(a, b uint32) (uint32, bool) {
	s := a + b
	return s, s >= a
}

// MulU32 returns a*b and false on overflow.
func MulU32(a, b uint32) (uint32, bool) {
	p := uint64(a) * uint64(b)
	return uint32(p), p <= math.MaxUint32
}

// AddU64 returns a+b and false on overflow.
func AddU64(a, b uint64) (uint64, bool) {
	s := a + b
	return s, s >= a
}

// ═══════════════════════════════════════════════════════════════════════════
// Level Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Level is derived from total XP: floor(sqrt(xp / 100)) + 1.
type Level uint32

// LevelFor computes the level for an XP total.
func LevelFor(xp uint64) Level {
	n := xp / 100
	r := uint64(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return Level(r + 1)
}

// XPForLevel is the minimum XP total that reaches level l.
func XPForLevel(l Level) uint64 {
	if l <= 1 {
		return 0
	}
	k := uint64(l - 1)
	return k * k * 100
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	return Pagination{Page: page, PageSize: Pagination{PageSize: pageSize}.Limit()}
}
