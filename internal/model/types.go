package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Scalars
// -----------------------------------------------------------------------------

// Scalar is a JSON string or number kept in its textual form.
// It is used for fields the upstream may send either way (e.g. order_number).
type Scalar string

// UnmarshalJSON accepts a JSON string, number or null.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	v, err := decodeScalar(data)
	if err != nil {
		return err
	}
	*s = Scalar(v)
	return nil
}

// MarshalJSON always emits a JSON string.
func (s Scalar) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

func (s Scalar) String() string { return string(s) }

// Amount is a monetary value as sent by the upstream: "10.50" or 10.5.
type Amount string

// UnmarshalJSON accepts a JSON string, number or null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	v, err := decodeScalar(data)
	if err != nil {
		return err
	}
	*a = Amount(v)
	return nil
}

// MarshalJSON always emits a JSON string, mirroring the upstream's decimal encoding.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a))
}

func (a Amount) String() string { return string(a) }

// Float64 parses the amount. Returns NaN when the text is empty or not a
// number, and ±Inf when it is out of float64 range.
func (a Amount) Float64() float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(a)), 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return f
		}
		return math.NaN()
	}
	return f
}

// decodeScalar returns the textual form of a JSON string or number.
// null decodes to "".
func decodeScalar(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}

	switch c := data[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		return "", fmt.Errorf("expected string or number, got %s", data)
	}
}

// -----------------------------------------------------------------------------
// Records
// -----------------------------------------------------------------------------

// OrderItem is one row of the order-items feed.
type OrderItem struct {
	ID           int64  `json:"id"`            // Unique within a batch, used as row key
	OrderNumber  Scalar `json:"order_number"`  // External order reference
	CostUSD      Amount `json:"cost_usd"`      // Cost in US dollars
	CostRUB      Amount `json:"cost_rub"`      // Cost in Russian rubles
	DeliveryDate string `json:"delivery_date"` // Date label (chart category axis)
}

// Snapshot is one successfully fetched batch of order items.
type Snapshot struct {
	ID        uuid.UUID   // Fresh per successful poll
	Items     []OrderItem // Read-only after publish
	FetchedAt time.Time   // When the fetch completed
}

// NewSnapshot wraps items fetched at the given time with a fresh ID.
func NewSnapshot(items []OrderItem, fetchedAt time.Time) Snapshot {
	if items == nil {
		items = []OrderItem{}
	}
	return Snapshot{
		ID:        uuid.New(),
		Items:     items,
		FetchedAt: fetchedAt,
	}
}

// IsZero reports whether no poll has completed yet.
func (s Snapshot) IsZero() bool {
	return s.ID == uuid.Nil
}
