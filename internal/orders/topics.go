package orders

const (
	TopicOrderCreated    = "shop.order.created"
	TopicPaymentVerified = "shop.payment.verified"
	TopicPaymentFailed   = "shop.payment.failed"
)

// Partition key = order_id, so all events for one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
