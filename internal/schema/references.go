package schema

import (
	"regexp"
	"strings"
)

// RemoteReferences maps schema locations imported by the official XSDs to
// the local resource that replaces them. Validation never touches the network.
var RemoteReferences = map[string]string{
	"http://www.w3.org/TR/2002/REC-xmldsig-core-20020212/xmldsig-core-schema.xsd": "xmldsig-core-schema.xsd",
}

// PatchSchemaLocations rewrites known remote references in xsd to local names
func PatchSchemaLocations(xsd string, references map[string]string) string {
	for remote, local := range references {
		xsd = strings.ReplaceAll(xsd, remote, local)
	}
	return xsd
}

var schemaLocationHint = regexp.MustCompile(`\s+xsi:(?:schemaLocation|noNamespaceSchemaLocation)\s*=\s*(?:"[^"]*"|'[^']*')`)

// StripSchemaLocationHint removes xsi:schemaLocation hints so the engine
// cannot swap the supplied schema for a remote one
func StripSchemaLocationHint(xmlText string) string {
	return schemaLocationHint.ReplaceAllString(xmlText, "")
}
