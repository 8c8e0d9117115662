package template

// migrateDeprecatedKeys rewrites fields the distillation's SUPPLEMENTED
// FEATURES item 3 calls out as deprecated into their current replacements,
// so older template files keep working. A current-form field that is set
// (non-empty, or true for the boolean flags) wins over the deprecated
// equivalent; a current boolean left false takes the deprecated value.
func migrateDeprecatedKeys(doc *Document) {
	if doc.SupervisionUrl != "" && len(doc.SupervisionUrls) == 0 {
		doc.SupervisionUrls = []string{doc.SupervisionUrl}
	}
	if doc.AuthorizationFile != "" && doc.IdTagsFile == "" {
		doc.IdTagsFile = doc.AuthorizationFile
	}
	if doc.PayloadSchemaValidation != nil && !doc.OcppStrictCompliance {
		doc.OcppStrictCompliance = *doc.PayloadSchemaValidation
	}
	if doc.MustAuthorizeAtRemoteStart != nil && !doc.RemoteAuthorization {
		doc.RemoteAuthorization = *doc.MustAuthorizeAtRemoteStart
	}
}
