package storage

import (
	"fmt"
	"strings"
)

// providerConfig holds S3-compatible provider defaults.
type providerConfig struct {
	DefaultEndpoint  string
	RequiresPathStyle bool
	DefaultRegion    string
	EndpointTemplate string
}

// knownProviders contains configuration for known S3-compatible providers,
// so a chunk store can be pointed at any of them with just a provider name.
var knownProviders = map[string]providerConfig{
	"aws": {
		DefaultEndpoint: "https://s3.amazonaws.com",
		DefaultRegion:   "us-east-1",
	},
	"minio": {
		DefaultEndpoint:   "http://localhost:9000",
		RequiresPathStyle: true,
		DefaultRegion:     "us-east-1",
	},
	"wasabi": {
		DefaultEndpoint: "https://s3.wasabisys.com",
		DefaultRegion:   "us-east-1",
	},
	"digitalocean": {
		DefaultEndpoint:  "https://nyc3.digitaloceanspaces.com",
		DefaultRegion:    "nyc3",
		EndpointTemplate: "https://%s.digitaloceanspaces.com",
	},
	"backblaze": {
		DefaultEndpoint:   "https://s3.us-west-000.backblazeb2.com",
		RequiresPathStyle: true,
		DefaultRegion:     "us-west-000",
		EndpointTemplate:  "https://s3.%s.backblazeb2.com",
	},
	"cloudflare": {
		DefaultEndpoint: "https://<account-id>.r2.cloudflarestorage.com",
		DefaultRegion:   "auto",
	},
}

// ValidateProviderConfig resolves the effective endpoint and region for a
// named provider, filling in defaults where the caller left them blank.
func ValidateProviderConfig(endpoint, provider, region string) (string, string, error) {
	p, ok := knownProviders[strings.ToLower(provider)]
	if !ok {
		return "", "", fmt.Errorf("storage: unknown s3 provider %q", provider)
	}

	if endpoint == "" {
		if p.EndpointTemplate != "" && region != "" {
			endpoint = fmt.Sprintf(p.EndpointTemplate, region)
		} else {
			endpoint = p.DefaultEndpoint
		}
	}
	endpoint = normalizeEndpoint(endpoint)

	if region == "" {
		region = p.DefaultRegion
	}
	return endpoint, region, nil
}

func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	return strings.TrimSuffix(endpoint, "/")
}

// RequiresPathStyleAddressing reports whether a provider needs path-style
// bucket addressing instead of virtual-hosted-style.
func RequiresPathStyleAddressing(provider string) bool {
	p, ok := knownProviders[strings.ToLower(provider)]
	return ok && p.RequiresPathStyle
}
