package model

// SystemStats 系统统计数据
type SystemStats struct {
	TotalUsers      int   `json:"total_users"`
	TotalProducts   int   `json:"total_products"`
	TotalOrders     int   `json:"total_orders"`
	TotalAmount     int64 `json:"total_amount"` // 最小货币单位（分）
	PendingOrders   int   `json:"pending_orders"`
	DisputedOrders  int   `json:"disputed_orders"`
	CompletedOrders int   `json:"completed_orders"`
}
