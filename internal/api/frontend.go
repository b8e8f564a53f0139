package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// ServeFrontend 托管打包好的单页前端：/assets 下是静态文件，
// 其余未匹配的 GET 请求回落到 index.html，/api 下的未知路径仍返回 404
func ServeFrontend(r *gin.Engine, root string) {
	r.Static("/assets", filepath.Join(root, "assets"))
	index := filepath.Join(root, "index.html")
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "not_found",
				"message": "route not found",
			})
			return
		}
		c.File(index)
	})
}
