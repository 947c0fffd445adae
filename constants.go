package canvas

import "github.com/cnvs/canvas-server/internal/constants"

// Re-export constants for public API.
const (
	CanvasWidth              = constants.CanvasWidth
	CanvasHeight             = constants.CanvasHeight
	CanvasCells              = constants.CanvasCells
	MaxColor                 = constants.MaxColor
	UserMax                  = constants.UserMax
	DefaultWheelSlots        = constants.DefaultWheelSlots
	DefaultWheelTick         = constants.DefaultWheelTick
	DefaultSubmissionDepth   = constants.DefaultSubmissionDepth
	DefaultCompletionDepth   = constants.DefaultCompletionDepth
	DefaultBufferCount       = constants.DefaultBufferCount
	DefaultBufferSize        = constants.DefaultBufferSize
	DefaultTxPoolSize        = constants.DefaultTxPoolSize
	DefaultMaxConns          = constants.DefaultMaxConns
	DefaultIdleTimeout       = constants.DefaultIdleTimeout
	DefaultMasterBatchDrain  = constants.DefaultMasterBatchDrain
	DefaultBroadcastInterval = constants.DefaultBroadcastInterval
	DefaultMaintenanceInterval = constants.DefaultMaintenanceInterval
	SPSCQueueSize            = constants.SPSCQueueSize
	ALPN                     = constants.ALPN
	DefaultPort              = constants.DefaultPort
)
