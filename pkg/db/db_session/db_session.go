package db_session

import (
	"sync"

	"gorm.io/gorm/logger"
)

// Postgres sslmode value meaning TLS is off; connection strings built from
// config compare against it.
const disable = "disable"

// once guards pool initialization: Init may be called by several servers
// sharing the factory but the pool must only be built on the first call.
var once sync.Once

// LoggerReconfigurable is implemented by session factories whose GORM log
// level can be changed while the process runs.
type LoggerReconfigurable interface {
	ReconfigureLogger(level logger.LogLevel)
}
