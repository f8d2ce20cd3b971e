package middleware

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const CtxDB = "db"

// InjectDB 注入全局数据库实例
func InjectDB(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(CtxDB, db)
		c.Next()
	}
}
