package duress

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"
)

var (
	ErrInvalidDecoyParams = errors.New("duress: invalid decoy generation parameters")
)

// onionAddressBytes matches the spec's fake-onion-address generator: 35
// random bytes, base32-no-padding encoded, suffixed with ".onion".
const onionAddressBytes = 35

// DecoyMessage is one synthetic message belonging to a DecoyContact.
type DecoyMessage struct {
	Timestamp  time.Time
	Length     int
	IsOutgoing bool
}

// DecoyContact is one pseudo-identity in a generated decoy database.
type DecoyContact struct {
	OnionAddress string
	Messages     []DecoyMessage
}

// GenerateDecoyContacts produces n deterministic-looking pseudo-identities,
// each with messagesPerContact messages of random length in
// [minLen, maxLen], timestamped uniformly within the last 7 days and sorted
// ascending, with is_outgoing chosen uniformly at random.
func GenerateDecoyContacts(n, messagesPerContact, minLen, maxLen int) ([]DecoyContact, error) {
	if n <= 0 || messagesPerContact <= 0 {
		return nil, fmt.Errorf("%w: n=%d messages_per_contact=%d", ErrInvalidDecoyParams, n, messagesPerContact)
	}
	if minLen < 0 || maxLen < minLen {
		return nil, fmt.Errorf("%w: min_len=%d max_len=%d", ErrInvalidDecoyParams, minLen, maxLen)
	}

	now := time.Now()
	weekAgo := now.Add(-7 * 24 * time.Hour)
	windowNanos := now.Sub(weekAgo).Nanoseconds()

	contacts := make([]DecoyContact, n)
	for i := 0; i < n; i++ {
		addr, err := randomOnionAddress()
		if err != nil {
			return nil, err
		}

		messages := make([]DecoyMessage, messagesPerContact)
		for j := 0; j < messagesPerContact; j++ {
			length, err := randomIntInRange(minLen, maxLen)
			if err != nil {
				return nil, err
			}
			offset, err := randomInt63n(windowNanos)
			if err != nil {
				return nil, err
			}
			outgoing, err := randomBool()
			if err != nil {
				return nil, err
			}
			messages[j] = DecoyMessage{
				Timestamp:  weekAgo.Add(time.Duration(offset)),
				Length:     length,
				IsOutgoing: outgoing,
			}
		}
		sort.Slice(messages, func(a, b int) bool {
			return messages[a].Timestamp.Before(messages[b].Timestamp)
		})

		contacts[i] = DecoyContact{OnionAddress: addr, Messages: messages}
	}

	return contacts, nil
}

func randomOnionAddress() (string, error) {
	raw := make([]byte, onionAddressBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("duress: onion address generation: %w", err)
	}
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw)
	return encoded + ".onion", nil
}

func randomIntInRange(min, max int) (int, error) {
	if min == max {
		return min, nil
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min+1)))
	if err != nil {
		return 0, fmt.Errorf("duress: random length generation: %w", err)
	}
	return min + int(n.Int64()), nil
}

func randomInt63n(n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0, fmt.Errorf("duress: random timestamp generation: %w", err)
	}
	return v.Int64(), nil
}

func randomBool() (bool, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(2))
	if err != nil {
		return false, fmt.Errorf("duress: random bool generation: %w", err)
	}
	return v.Int64() == 1, nil
}
