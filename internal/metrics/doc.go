// Package metrics records probe and scan outcomes as Prometheus metrics and can
// export them as a node_exporter textfile.
package metrics
