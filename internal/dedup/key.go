package dedup

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"triagebot/internal/model"
)

// Key 有来源 ID 时直接用；否则用正文的 BLAKE2b-256 摘要，长度固定
func Key(msg model.InboundMessage) string {
	if msg.SourceID != "" {
		return "id:" + msg.SourceID
	}
	sum := blake2b.Sum256([]byte(msg.Body))
	return "body:" + hex.EncodeToString(sum[:])
}
