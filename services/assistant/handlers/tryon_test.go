// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// Tests for the virtual try-on endpoint

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaraara/concierge/services/assistant/datatypes"
	"github.com/zaraara/concierge/services/assistant/graph"
)

// tryOnForm builds a multipart body with the given parts. Either part can be
// omitted by passing the zero value.
func tryOnForm(t *testing.T, image []byte, productName string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if image != nil {
		part, err := mw.CreateFormFile("image", "person.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	if productName != "" {
		require.NoError(t, mw.WriteField("productName", productName))
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func postTryOn(router *gin.Engine, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/tryon", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)
	return w
}

func TestHandleTryOn_Success(t *testing.T) {
	var gotState graph.State
	engine := newStubEngine(t, func(_ context.Context, st *graph.State) (*graph.State, error) {
		gotState = *st
		st.Response = []datatypes.Reply{{
			Type:    datatypes.ReplyTypeTryOn,
			Message: "Here's your virtual try-on result.",
		}}
		return st, nil
	})
	router := gin.New()
	router.POST("/api/tryon", HandleTryOn(engine, testMetrics))

	body, ct := tryOnForm(t, []byte("person-bytes"), "silk dress")
	w := postTryOn(router, body, ct)
	require.Equal(t, http.StatusOK, w.Code)

	var replies []datatypes.Reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &replies))
	require.Len(t, replies, 1)
	assert.Equal(t, datatypes.ReplyTypeTryOn, replies[0].Type)

	assert.True(t, gotState.TryOnRequested)
	assert.False(t, gotState.ChatRequested)
	assert.Equal(t, "silk dress", gotState.ProductName)
	assert.Equal(t, []byte("person-bytes"), gotState.UploadedImage)
}

func TestHandleTryOn_MissingImage(t *testing.T) {
	router := gin.New()
	router.POST("/api/tryon", HandleTryOn(echoEngine(t), testMetrics))

	body, ct := tryOnForm(t, nil, "silk dress")
	w := postTryOn(router, body, ct)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No image uploaded")
}

func TestHandleTryOn_MissingProductName(t *testing.T) {
	router := gin.New()
	router.POST("/api/tryon", HandleTryOn(echoEngine(t), testMetrics))

	body, ct := tryOnForm(t, []byte("person-bytes"), "")
	w := postTryOn(router, body, ct)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Product name is required")
}

func TestHandleTryOn_BlankProductNameRejected(t *testing.T) {
	router := gin.New()
	router.POST("/api/tryon", HandleTryOn(echoEngine(t), testMetrics))

	body, ct := tryOnForm(t, []byte("person-bytes"), "   ")
	w := postTryOn(router, body, ct)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Product name is required")
}

func TestHandleTryOn_ProductNameTooLong(t *testing.T) {
	router := gin.New()
	router.POST("/api/tryon", HandleTryOn(echoEngine(t), testMetrics))

	body, ct := tryOnForm(t, []byte("person-bytes"), strings.Repeat("x", datatypes.MaxProductNameBytes+1))
	w := postTryOn(router, body, ct)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "too long")
}

func TestHandleTryOn_PipelineFailure(t *testing.T) {
	router := gin.New()
	router.POST("/api/tryon", HandleTryOn(failingEngine(t), testMetrics))

	body, ct := tryOnForm(t, []byte("person-bytes"), "silk dress")
	w := postTryOn(router, body, ct)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Try-on failed")
	assert.Contains(t, w.Body.String(), "pipeline exploded")
}
