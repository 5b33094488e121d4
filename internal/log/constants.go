package log

const (
	KeyAppName            = "app"
	KeyAuthToken          = "authToken"
	KeyBody               = "body"
	KeyCacheKey           = "cacheKey"
	KeyCartItems          = "cartItems"
	KeyConfig             = "config"
	KeyCount              = "count"
	KeyDbDriver           = "dbDriver"
	KeyDbURL              = "dbURL"
	KeyFilename           = "filename"
	KeyHeader             = "header"
	KeyMediaPath          = "mediaPath"
	KeyProcess            = "process"
	KeyProduct            = "product"
	KeyProductID          = "productId"
	KeyProducts           = "products"
	KeyQuery              = "query"
	KeyRequest            = "request"
	KeyRequestBody        = "requestBody"
	KeyRequestHost        = "host"
	KeyRequestID          = "requestId"
	KeyRequestIp          = "requesterIP"
	KeyRequestMethod      = "requestMethod"
	KeyRequestProcessedAt = "requestProcessedAt"
	KeyRequestURI         = "requestURI"
	KeyRequestURL         = "requestURL"
	KeySpanID             = "spanId"
	KeyStatusCode         = "statusCode"
	KeyTag                = "tag"
	KeyToken              = "token"
	KeyTraceID            = "traceId"
)
