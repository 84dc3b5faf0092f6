package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type pageQuery struct {
	Page int `form:"page" binding:"min=0"`
}

type startBody struct {
	StudentID string `json:"student_id" binding:"required,uuid"`
}

func newContext(method, target, body string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c
}

func TestBindReportsJSONFieldNames(t *testing.T) {
	Setup()

	fields := Bind(newContext(http.MethodPost, "/", `{"student_id":"nope"}`), &startBody{})
	require.Contains(t, fields, "student_id")

	var ok startBody
	require.Nil(t, Bind(newContext(http.MethodPost, "/", `{"student_id":"6f1c2a52-3a1f-4c43-9a3e-0d5d9b0f7c11"}`), &ok))
}

func TestBindQueryReportsFormFieldNames(t *testing.T) {
	Setup()

	fields := BindQuery(newContext(http.MethodGet, "/?page=-2", ""), &pageQuery{})
	require.Contains(t, fields, "page")

	var q pageQuery
	require.Nil(t, BindQuery(newContext(http.MethodGet, "/?page=3", ""), &q))
	require.Equal(t, 3, q.Page)
}

func TestTranslateErrorsFallsBackToDetail(t *testing.T) {
	fields := Bind(newContext(http.MethodPost, "/", `{not json`), &startBody{})
	require.Contains(t, fields, "detail")
}
