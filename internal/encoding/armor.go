package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"keyscope/internal/errors"
)

// PrivateKeyBlockType is the PEM type line ssh-keygen writes.
const PrivateKeyBlockType = "OPENSSH PRIVATE KEY"

// armorLineLen matches ssh-keygen's 70-column base64 body.
const armorLineLen = 70

// Unarmor returns the binary container inside the first OPENSSH PRIVATE KEY
// block of data. Text before the block is skipped.
func Unarmor(data []byte) ([]byte, error) {
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, fmt.Errorf("%w: no %s block", errors.ErrMalformedContainer, PrivateKeyBlockType)
		}
		if block.Type == PrivateKeyBlockType {
			if len(block.Headers) != 0 {
				return nil, fmt.Errorf("%w: unexpected PEM headers", errors.ErrMalformedContainer)
			}
			return block.Bytes, nil
		}
	}
}

// IsArmored reports whether data looks like PEM text rather than a raw container.
func IsArmored(data []byte) bool {
	return bytes.Contains(data, []byte("-----BEGIN "+PrivateKeyBlockType+"-----"))
}

// Armor wraps a binary container in PEM text with 70-column lines.
func Armor(container []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("-----BEGIN " + PrivateKeyBlockType + "-----\n")
	b64 := base64.StdEncoding.EncodeToString(container)
	for len(b64) > armorLineLen {
		buf.WriteString(b64[:armorLineLen])
		buf.WriteByte('\n')
		b64 = b64[armorLineLen:]
	}
	if len(b64) > 0 {
		buf.WriteString(b64)
		buf.WriteByte('\n')
	}
	buf.WriteString("-----END " + PrivateKeyBlockType + "-----\n")
	return buf.Bytes()
}
