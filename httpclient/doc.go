// Package httpclient is the transport used by every remote call of the
// export engine: paged REST GETs, GraphQL POSTs, NDJSON streams and the
// OIDC token endpoint.
//
// Failures are classified into *Error values; timeouts, connection
// failures, 429 and 5xx responses are retryable, everything else fails
// fast. Secured endpoints take a TokenSource that is consulted before
// every request.
//
// # Basic Usage
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.data.example.org",
//	    Retry:   httpclient.DefaultRetry(3, 5*time.Second),
//	    Auth:    httpclient.TokenAuth(lifecycle),
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodGet,
//	    Path:   "/gob/public/meetbouten/meetbouten/",
//	})
package httpclient
