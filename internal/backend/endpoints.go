package backend

import "fmt"

// API path prefixes on the storefront backend. Admin endpoints require a
// bearer token with an admin role; public endpoints are anonymous.
const (
	AdminPrefix  = "/api/admin"
	PublicPrefix = "/api/public"
)

// Endpoints holds the URL paths for one resource collection. List and
// Create share the collection path; Detail, Update, and Delete address a
// single record.
type Endpoints struct {
	Collection string
	Detail     func(id string) string
}

// AdminEndpoints builds the admin CRUD paths for a resource,
// e.g. resource "products" → /api/admin/products and /api/admin/products/{id}.
func AdminEndpoints(resource string) Endpoints {
	return prefixedEndpoints(AdminPrefix, resource)
}

// PublicEndpoints builds the read-only public paths for a resource.
func PublicEndpoints(resource string) Endpoints {
	return prefixedEndpoints(PublicPrefix, resource)
}

func prefixedEndpoints(prefix, resource string) Endpoints {
	collection := fmt.Sprintf("%s/%s", prefix, resource)
	return Endpoints{
		Collection: collection,
		Detail: func(id string) string {
			return fmt.Sprintf("%s/%s", collection, id)
		},
	}
}

// Discount endpoints. These are fixed paths rather than a CRUD resource:
// the backend exposes coupon retrieval and cart application as verbs.
const (
	PathDiscountsAvailable = PublicPrefix + "/discounts/available"
	PathDiscountsValidate  = PublicPrefix + "/discounts/validate"
	PathDiscountsApply     = PublicPrefix + "/discounts/apply"
	PathDiscountsRemove    = PublicPrefix + "/discounts/remove"
)

// PathVersion reports the backend build version, used by the startup gate.
const PathVersion = "/api/version"
