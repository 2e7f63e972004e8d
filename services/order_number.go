package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderNumberGenerator produces human-readable order numbers
type OrderNumberGenerator interface {
	Next(now time.Time) string
}

// uuidOrderNumbers formats numbers as PC-YYYYMMDD-XXXXXX. Collisions are
// caught by the unique index on orders.order_number.
type uuidOrderNumbers struct{}

func (uuidOrderNumbers) Next(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("PC-%s-%s", now.Format("20060102"), strings.ToUpper(suffix))
}

// DefaultOrderNumbers is the generator used by the order service
var DefaultOrderNumbers OrderNumberGenerator = uuidOrderNumbers{}
