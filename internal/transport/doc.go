// Package transport provides the HTTP client used to fetch sitemaps, pages
// and assets.
//
// The client:
//   - skips TLS certificate verification unless asked not to, because mirrored
//     sites frequently run on self-signed certificates
//   - bounds every request by a timeout
//   - optionally routes through a SOCKS5 proxy (golang.org/x/net/proxy)
//   - injects per-site headers and a cookie into requests to the target host only
//   - follows redirects only within the host of the original request
//   - reads bodies through a size limit
//
// Retries are never performed: a failed request is reported to the caller once.
package transport
