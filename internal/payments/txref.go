package payments

import (
	"strconv"
	"strings"
	"time"
)

// Chapa caps tx_ref at 50 characters.
const txRefMaxLen = 50

// MakeTxRef mints the gateway reference for one payment attempt, bound to
// the order id and the current time. UUID order ids do not fit whole, so the
// id is compacted and trimmed; the unique index on payments.tx_ref is the
// backstop against the (already negligible) collision window.
func MakeTxRef(orderID string, now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	id := strings.ReplaceAll(orderID, "-", "")
	if max := txRefMaxLen - len("order__") - len(ts); len(id) > max {
		id = id[:max]
	}
	return "order_" + id + "_" + ts
}
