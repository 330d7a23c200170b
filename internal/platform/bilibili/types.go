package bilibili

// Code is nil when the payload omits it.
type pagelistResponse struct {
	Code    *int   `json:"code"`
	Message string `json:"message"`
	Data    []page `json:"data"`
}

type page struct {
	CID  int64  `json:"cid"`
	Part string `json:"part"`
}

type playurlResponse struct {
	Code    *int         `json:"code"`
	Message string       `json:"message"`
	Data    *playurlData `json:"data"`
}

type playurlData struct {
	Dash *dash `json:"dash"`
}

type dash struct {
	Video []dashStream `json:"video"`
	Audio []dashStream `json:"audio"`
}

// dashStream carries both spellings; the API has served each at times.
type dashStream struct {
	BaseURL      string `json:"baseUrl"`
	BaseURLSnake string `json:"base_url"`
}
