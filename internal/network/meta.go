package network

import (
	"encoding/json"
	"errors"

	"github.com/maheshrc27/socialflow/internal/transfer"
)

const graphAPIVersion = "v21.0"

// Graph error codes documented as throttling or temporary unavailability.
var graphTransientCodes = map[int]bool{1: true, 2: true, 4: true, 17: true, 32: true, 341: true, 613: true}

const (
	graphCodeInvalidParameter = 100
	graphCodeInvalidToken     = 190
)

// classifyGraph maps a Graph API failure to a typed error. fallback is the
// kind used for non-transient provider rejections of this operation.
func classifyGraph(n Network, op string, err error, fallback Kind) error {
	var se *statusError
	if !errors.As(err, &se) {
		return wrap(KindTransient, n, op, err)
	}

	var ge transfer.GraphErrorResponse
	_ = json.Unmarshal(se.Body, &ge)
	msg := ge.Error.Message
	if ge.Error.ErrorUserMsg != "" {
		msg = ge.Error.ErrorUserMsg
	}
	if msg == "" {
		msg = se.Error()
	}

	kind := fallback
	switch {
	case se.transient() || ge.Error.IsTransient || graphTransientCodes[ge.Error.Code]:
		kind = KindTransient
	case ge.Error.Code == graphCodeInvalidToken && fallback == KindRefreshRecoverable:
		kind = KindRefreshPermanent
	case ge.Error.Code == graphCodeInvalidParameter && op == "create_container":
		kind = KindValidation
	}
	return &Error{Kind: kind, Network: n, Op: op, Message: msg, Err: se}
}

func insightsToMetrics(in transfer.GraphInsights) *PostMetrics {
	m := &PostMetrics{}
	for _, d := range in.Data {
		v := d.TotalValue.Value
		if len(d.Values) > 0 {
			v = d.Values[0].Value
		}
		switch d.Name {
		case "likes":
			m.Likes = v
		case "comments":
			m.Comments = v
		case "shares":
			m.Shares = v
		case "saved":
			m.Saves = v
		case "views", "video_views":
			m.Views = v
		case "reach", "post_impressions_unique":
			m.Reach = v
		case "impressions", "post_impressions":
			m.Impressions = v
		}
	}
	return m
}
