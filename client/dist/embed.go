package clientdist

import _ "embed"

// ScrollkitJS is the browser client.
//
// It is served by the server at "/_scrollkit/client.js".
//
//go:embed scrollkit.js
var ScrollkitJS []byte
