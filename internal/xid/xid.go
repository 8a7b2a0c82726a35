package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

func New(prefix string) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), hex.EncodeToString(buf))
}

// DebtID keeps the ledger's historical "DEBT-<unix millis>" shape.
func DebtID(at time.Time) string {
	return fmt.Sprintf("DEBT-%d", at.UnixMilli())
}
