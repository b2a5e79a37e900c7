package transfer

import "encoding/json"

// Wire types shared by the Instagram and Facebook Graph APIs.

type GraphToken struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	UserID      json.Number `json:"user_id"`
}

type GraphID struct {
	ID string `json:"id"`
	// PostID is returned by the Pages photo endpoint when published=true.
	PostID string `json:"post_id"`
}

type InstagramUserInfo struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profile_picture_url"`
	FollowersCount int64  `json:"followers_count"`
	FollowsCount   int64  `json:"follows_count"`
	MediaCount     int64  `json:"media_count"`
}

type InstagramContainerStatus struct {
	ID         string `json:"id"`
	StatusCode string `json:"status_code"`
	Status     string `json:"status"`
}

type GraphPermalink struct {
	ID           string `json:"id"`
	Permalink    string `json:"permalink"`
	PermalinkURL string `json:"permalink_url"`
}

type GraphInsights struct {
	Data []struct {
		Name   string `json:"name"`
		Values []struct {
			Value int64 `json:"value"`
		} `json:"values"`
		TotalValue struct {
			Value int64 `json:"value"`
		} `json:"total_value"`
	} `json:"data"`
}

type FacebookPage struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Username       string `json:"username"`
	FollowersCount int64  `json:"followers_count"`
	FanCount       int64  `json:"fan_count"`
	AccessToken    string `json:"access_token"`
	Picture        struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

type FacebookPages struct {
	Data []FacebookPage `json:"data"`
}

type FacebookVideoStatus struct {
	ID     string `json:"id"`
	Status struct {
		VideoStatus        string `json:"video_status"`
		ProcessingProgress int    `json:"processing_progress"`
	} `json:"status"`
}

type FacebookPostStats struct {
	ID     string `json:"id"`
	Shares struct {
		Count int64 `json:"count"`
	} `json:"shares"`
	Reactions struct {
		Summary struct {
			TotalCount int64 `json:"total_count"`
		} `json:"summary"`
	} `json:"reactions"`
	Comments struct {
		Summary struct {
			TotalCount int64 `json:"total_count"`
		} `json:"summary"`
	} `json:"comments"`
}

type GraphErrorResponse struct {
	Error struct {
		Message        string `json:"message"`
		Type           string `json:"type"`
		Code           int    `json:"code"`
		ErrorSubcode   int    `json:"error_subcode"`
		IsTransient    bool   `json:"is_transient"`
		ErrorUserTitle string `json:"error_user_title"`
		ErrorUserMsg   string `json:"error_user_msg"`
		FbtraceID      string `json:"fbtrace_id"`
	} `json:"error"`
}
