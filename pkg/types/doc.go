// Package types defines the JSON wire types shared by partcast-server and the
// partcast CLI client.
//
// Field names match the request and response bodies of the first version of
// the service (part_type, current_km, x_km, risk_pct, ...) so existing
// front-end code keeps working.
package types
