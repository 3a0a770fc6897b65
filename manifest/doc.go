// Package manifest loads tool descriptors from YAML or JSON documents.
//
// A manifest lists tools the way they are declared in code:
//
//	tools:
//	  - name: get_user
//	    intent: resource
//	    cache: 60000          # milliseconds
//	    clientCache: 30000    # milliseconds
//	    inputSchema:
//	      type: object
//	      properties: {id: {type: string}}
//	      required: [id]
//	    http:
//	      url: ${API_BASE}/users
//	      proxyHeaders: [Authorization]
//	      headers:
//	        X-Api-Key: secretref:env:API_KEY
//
// Local tools name a function with "func:" which is looked up in a
// caller-provided Funcs table. Strings under "http.url" and "http.headers"
// go through strict environment expansion and secret reference resolution
// (see Resolver) before the descriptor is built.
package manifest
