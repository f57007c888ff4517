package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// New returns an opaque unique id with the given prefix.
func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}

// BillNumber builds the display invoice number from the last four digits of a
// millisecond timestamp. It is NOT unique — two bills in the same ~10 seconds
// can collide — and nothing enforces uniqueness. The bill's id is the handle;
// the number exists only for receipts.
func BillNumber(t time.Time) string {
	ms := strconv.FormatInt(t.UnixMilli(), 10)
	return "INV-" + ms[len(ms)-4:]
}
