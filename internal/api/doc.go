// Package api provides the futures REST request executor.
//
// Requests run over the pooled client owned by a session.Manager. Every
// successful call reports activity back to the session so that real traffic
// postpones idle expiry.
//
// REST endpoint:
//   - https://futures.mexc.com/api/v1
//
// Private endpoints authenticate with a browser WEB token. Requests with a
// body are additionally signed (x-mxc-nonce / x-mxc-sign).
package api
