package doginals

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// idPattern matches a base txid optionally suffixed with "i<index>".
var idPattern = regexp.MustCompile(`^([0-9a-fA-F]{64})(?:i([0-9]+))?$`)

// ID identifies a single inscription: the txid of its genesis transaction
// plus the index within that transaction's envelope set. Index 0 is implied
// when omitted from the string form.
type ID struct {
	Txid  string
	Index uint32
}

// ParseID parses "<txid>" or "<txid>i<index>" into an ID.
func ParseID(s string) (ID, error) {
	m := idPattern.FindStringSubmatch(s)
	if m == nil {
		return ID{}, Newf(KindInvalidInput, nil, "malformed inscription id %q", s)
	}
	var idx uint32
	if m[2] != "" {
		n, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			return ID{}, Newf(KindInvalidInput, err, "malformed inscription index in %q", s)
		}
		idx = uint32(n)
	}
	return ID{Txid: strings.ToLower(m[1]), Index: idx}, nil
}

// String renders the canonical "<txid>i<index>" form.
func (id ID) String() string {
	return fmt.Sprintf("%si%d", id.Txid, id.Index)
}

// BaseTxid returns the identifier without its index suffix.
func (id ID) BaseTxid() string {
	return id.Txid
}
