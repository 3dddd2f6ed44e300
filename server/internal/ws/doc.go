// Package ws implements the live projections feed for partcast-server.
//
// The server mounts Hub at /ws/projections. On connect a client receives the
// recent projections list straight away, then a fresh copy every feed
// interval. The server never reads application data from clients.
//
// Message format:
//
//	{
//	  "event": "projections",
//	  "data":  {"projections": [ /* GET /api/v1/projections items */ ], "generated_at": "..."}
//	}
package ws
