package wopi

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/learnweb/moodle-assignsubmission-collabora/internal/submission"
)

// Access tokens bind a principal id to a check value:
// <md5(principalid)>_<principalid>. The token is stateless and deterministic;
// the same principal always gets the same token and nothing is persisted
// server-side. MD5 here is a non-keyed integrity check inherited from the
// historical scheme, not a MAC: it prevents accidental id confusion, it does
// not resist forgery. Treat the token as session continuity, not a
// credential.
const tokenSeparator = "_"

// IssueToken derives the access token for a principal. Pure function, no
// side effects.
func IssueToken(p submission.PrincipalID) string {
	id := strconv.FormatInt(int64(p), 10)
	return tokenCheckValue(id) + tokenSeparator + id
}

// PrincipalFromToken validates a token and returns the principal it names.
// Fails with ErrMalformedToken when the structure does not parse and with
// ErrTokenCheckMismatch when the check value does not match the claimed id.
func PrincipalFromToken(token string) (submission.PrincipalID, error) {
	check, id, ok := strings.Cut(token, tokenSeparator)
	if !ok || check == "" || id == "" {
		return 0, fmt.Errorf("token %q: %w", token, ErrMalformedToken)
	}

	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("token principal %q: %w", id, ErrMalformedToken)
	}

	if tokenCheckValue(id) != check {
		return 0, fmt.Errorf("token for principal %s: %w", id, ErrTokenCheckMismatch)
	}
	return submission.PrincipalID(n), nil
}

func tokenCheckValue(id string) string {
	sum := md5.Sum([]byte(id))
	return hex.EncodeToString(sum[:])
}
