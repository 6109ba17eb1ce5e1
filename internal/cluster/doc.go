// Package cluster is the HTTP client side of the middleware. It is used by
// pollctl and by integration tests to talk to a running middleware.
//
// # Overview
//
// PostJSON, PutJSON and GetJSON are the low-level helpers: they encode a
// body, send it, and decode a JSON response. Any response outside the 2xx
// range becomes an *HTTPError carrying the status code and, when the server
// sent one, the text of its {"error": "..."} body.
//
// Client wraps those helpers with typed calls for the middleware's routes:
//
//	Health       GET  /health              (503 still yields a report)
//	ShardInfo    GET  /shard-info/{key}
//	Query        POST /query/{shardKey}
//	QueryShard   POST /query/shard/{index}
//	QueryAll     POST /query/all
//	PollResults  GET  /polls/{pollId}/results
//
// Path segments are escaped, so keys may contain any characters.
//
// # Usage Example
//
//	c := cluster.NewClient("http://localhost:3001", nil)
//	info, err := c.ShardInfo(ctx, "user_123")
//	if err != nil {
//	    var herr *cluster.HTTPError
//	    if errors.As(err, &herr) && herr.StatusCode == http.StatusNotFound {
//	        ...
//	    }
//	}
//	fmt.Println(info.Shard.Host, info.Shard.Database)
package cluster
