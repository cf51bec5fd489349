package storage

// Archive 回调报文归档接口
// 已验签的原始回调报文按事件写入归档，供对账审计使用
type Archive interface {
	Save(key string, data []byte) (string, error)
}
