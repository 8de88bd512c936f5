package orders

const TopicOrderPlaced = "order.placed"

// Partition key = order_id so events about one order keep their ordering.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
