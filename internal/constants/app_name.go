package constants

const (
	AppProductService = "product-service"
	AppMigration      = "catalog-migration"
	AppMainCatalog    = "main catalog"
	AudienceAdmin     = "catalog-admin"
)
