package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/condor/pkg/logger"
)

func TestTriggerLimiter_LocalPerClient(t *testing.T) {
	request := func(remoteAddr string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/screens", nil)
		req.RemoteAddr = remoteAddr
		return req
	}

	tests := []struct {
		name   string
		client string
		want   []bool
	}{
		{name: "first client spends its budget", client: "10.0.0.1:5000", want: []bool{true, true, false}},
		{name: "second client keeps its own budget", client: "10.0.0.2:5000", want: []bool{true, true, false}},
		{name: "same host on another port shares the budget", client: "10.0.0.1:6000", want: []bool{false}},
	}

	l := NewTriggerLimiter(nil, 2, logger.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make([]bool, 0, len(tt.want))
			for range tt.want {
				got = append(got, l.Allow(request(tt.client)))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
