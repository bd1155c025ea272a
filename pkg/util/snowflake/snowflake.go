package snowflake

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

var (
	node     *snowflake.Node
	nodeOnce sync.Once
	nodeID   int64 = 1
)

// SetNode 设置节点 ID，需在首次生成 ID 之前调用
// 分布式部署时每台机器的 machineId 需唯一（0-1023）
func SetNode(machineID int64) {
	if machineID < 0 || machineID > 1023 {
		zap.L().Warn("invalid snowflake machine id, using default 1", zap.Int64("machineID", machineID))
		machineID = 1
	}
	nodeID = machineID
}

func initNode() {
	nodeOnce.Do(func() {
		var err error
		node, err = snowflake.NewNode(nodeID)
		if err != nil {
			zap.L().Fatal("Failed to initialize snowflake node", zap.Error(err))
		}
		zap.L().Info("Snowflake node initialized", zap.Int64("machineID", nodeID))
	})
}

// GenerateID 生成雪花 ID (int64)
func GenerateID() int64 {
	initNode()
	return node.Generate().Int64()
}

// GenerateIDString 生成雪花 ID (string)
// 用于 JSON 序列化，避免 JavaScript 精度丢失
func GenerateIDString() string {
	initNode()
	return node.Generate().String()
}
