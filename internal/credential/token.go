package credential

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// encodeToken produces the "<account-id>.<session-uuid>" prefix a minted
// token carries; VerifyToken's counterpart parses it back out. The
// remaining ".<nonce>" suffix Login appends exists only to keep successive
// tokens for the same login visually distinct.
func encodeToken(accountID int64, sessionID uuid.UUID) string {
	return strconv.FormatInt(accountID, 10) + "." + sessionID.String()
}

func decodeToken(token string) (accountID int64, sessionID uuid.UUID, ok bool) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return 0, uuid.UUID{}, false
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, uuid.UUID{}, false
	}
	sid, err := uuid.Parse(parts[1])
	if err != nil {
		return 0, uuid.UUID{}, false
	}
	return id, sid, true
}
