package model

// BlockFeedback 每 (user, block_index) 仅生成一次的区块成绩单
// 并发终结时由唯一索引兜底，读回先插入成功的一行
// swagger:model BlockFeedback
type BlockFeedback struct {
	BaseModel
	UserID     uint `gorm:"not null;uniqueIndex:uix_user_block" json:"userId"`
	BlockIndex int  `gorm:"not null;uniqueIndex:uix_user_block" json:"blockIndex"`

	Top1AccuracyPre  *float64 `json:"top1AccuracyPre"`
	Top1AccuracyPost *float64 `json:"top1AccuracyPost"`
	Top3AccuracyPre  *float64 `json:"top3AccuracyPre"`
	Top3AccuracyPost *float64 `json:"top3AccuracyPost"`
	DeltaTop1        *float64 `json:"deltaTop1"`
	DeltaTop3        *float64 `json:"deltaTop3"`

	// 同 block_index 下其他用户已终结成绩的均值（无同伴数据时写入可配置的占位值）
	PeerAvgTop1Pre  *float64 `json:"peerAvgTop1Pre"`
	PeerAvgTop1Post *float64 `json:"peerAvgTop1Post"`
	PeerAvgTop3Pre  *float64 `json:"peerAvgTop3Pre"`
	PeerAvgTop3Post *float64 `json:"peerAvgTop3Post"`
}

func (BlockFeedback) TableName() string {
	return "block_feedback"
}
