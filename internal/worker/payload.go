package worker

// Low stock alert sources.
const (
	LowStockSourceSale = "sale"
	LowStockSourceScan = "scan"
)

// LowStockItem is one product at or below the alert threshold.
type LowStockItem struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

// LowStockPayload is the job body pushed to QueueAlerts.
type LowStockPayload struct {
	Source    string         `json:"source"`
	Threshold int            `json:"threshold"`
	Items     []LowStockItem `json:"items"`
}
