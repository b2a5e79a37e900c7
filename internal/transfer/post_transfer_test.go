package transfer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduleRequestValidate(t *testing.T) {
	at := time.Now().Add(time.Hour)
	valid := func() ScheduleRequest {
		return ScheduleRequest{AccountIDs: []int64{1, 2}, MediaIDs: []int64{3}, Caption: "hi", ScheduledFor: &at}
	}

	tests := []struct {
		name   string
		mutate func(r *ScheduleRequest)
		field  string
	}{
		{"valid", func(r *ScheduleRequest) {}, ""},
		{"draft without time", func(r *ScheduleRequest) { r.ScheduledFor = nil }, ""},
		{"no accounts", func(r *ScheduleRequest) { r.AccountIDs = nil }, "account_ids"},
		{"duplicate accounts", func(r *ScheduleRequest) { r.AccountIDs = []int64{1, 1} }, "account_ids"},
		{"no media", func(r *ScheduleRequest) { r.MediaIDs = nil }, "media_ids"},
		{"bad media id", func(r *ScheduleRequest) { r.MediaIDs = []int64{0} }, "media_ids"},
		{"empty hashtag", func(r *ScheduleRequest) { r.Hashtags = []string{""} }, "hashtags"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(&r)
			err := r.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.field)
		})
	}
}

func TestRescheduleRequestValidate(t *testing.T) {
	assert.Error(t, (&RescheduleRequest{}).Validate())
	assert.NoError(t, (&RescheduleRequest{ScheduledFor: time.Now()}).Validate())
}
