package reddit

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrInvalidURL will be used when a submission URL doesn't point to a
	// reddit submission.
	ErrInvalidURL = errors.New("invalid submission url")
	// ErrNotFound will be used when the platform doesn't know the
	// requested submission.
	ErrNotFound = errors.New("submission not found")
)

// SubmissionID extracts the base36 submission id from a submission URL of
// the `/r/<subreddit>/comments/<id>/...` shape.
func SubmissionID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, segment := range segments {
		if segment != "comments" || i+1 >= len(segments) {
			continue
		}

		id := segments[i+1]
		if !isID36(id) {
			break
		}
		return id, nil
	}

	return "", fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
}

func isID36(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
