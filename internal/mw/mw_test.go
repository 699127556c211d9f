package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCache(t *testing.T) {
	calls := 0
	r := gin.New()
	r.Use(Cache(cache.New(time.Minute, time.Minute), time.Minute))
	r.GET("/readings", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.GET("/missing", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusNotFound, gin.H{"status": "error"})
	})

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/readings", nil))
	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/readings", nil))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "MISS", first.Header().Get(CacheHeader))
	assert.Equal(t, "HIT", second.Header().Get(CacheHeader))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
	assert.Equal(t, 3, calls, "error responses are not cached")
}

func TestCache_IgnoresNonGET(t *testing.T) {
	calls := 0
	r := gin.New()
	r.Use(Cache(cache.New(time.Minute, time.Minute), time.Minute))
	r.POST("/poll", func(c *gin.Context) {
		calls++
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/poll", nil))
	}
	assert.Equal(t, 2, calls)
}

func TestInvalidatePrefix(t *testing.T) {
	store := cache.New(time.Minute, time.Minute)
	calls := map[string]int{}
	r := gin.New()
	r.Use(Cache(store, time.Minute))
	r.GET("/api/batches/:id/:kind", func(c *gin.Context) {
		calls[c.Request.RequestURI]++
		c.JSON(http.StatusOK, gin.H{"calls": calls[c.Request.RequestURI]})
	})
	r.GET("/api/alerts", func(c *gin.Context) {
		calls[c.Request.RequestURI]++
		c.JSON(http.StatusOK, gin.H{"calls": calls[c.Request.RequestURI]})
	})

	get := func(uri string) string {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, uri, nil))
		return w.Header().Get(CacheHeader)
	}
	uris := []string{"/api/batches/a/readings", "/api/batches/a/alerts", "/api/batches/b/readings", "/api/alerts"}
	for _, uri := range uris {
		assert.Equal(t, "MISS", get(uri))
		assert.Equal(t, "HIT", get(uri))
	}

	InvalidatePrefix(store, "/api/batches/a/", "/api/alerts")

	assert.Equal(t, "MISS", get("/api/batches/a/readings"))
	assert.Equal(t, "MISS", get("/api/batches/a/alerts"))
	assert.Equal(t, "MISS", get("/api/alerts"))
	assert.Equal(t, "HIT", get("/api/batches/b/readings"), "other batches stay cached")
	assert.Equal(t, 2, calls["/api/batches/a/readings"])
	assert.Equal(t, 1, calls["/api/batches/b/readings"])

	assert.NotPanics(t, func() { InvalidatePrefix(nil, "/api/") })
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(1), 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "limits are per client")
}

func TestIPRateLimiter_ReusesLimiter(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1)
	assert.Same(t, l.GetLimiter("10.0.0.1"), l.GetLimiter("10.0.0.1"))
	assert.NotSame(t, l.GetLimiter("10.0.0.1"), l.GetLimiter("10.0.0.2"))
}
