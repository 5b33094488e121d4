package http

const (
	KeyHeaderContentType       = "Content-Type"
	KeyHeaderAuthorization     = "Authorization"
	KeyHeaderRequestID         = "X-Request-Id"
	ValueHeaderApplicationJson = "application/json"
	ValueHeaderMultipartForm   = "multipart/form-data"
	StatusSuccess              = "success"
	StatusFailed               = "failed"
)
