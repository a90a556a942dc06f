// Package influxdb exports measurement data to an InfluxDB v2 server.
//
// The workbench archives sweeps locally in SQLite; this package is an
// optional mirror into a time-series store for cross-bench dashboards
// and long-term trend analysis. Writes are batched and non-blocking,
// so a slow or absent server never stalls a measurement.
//
// Measurements written:
//   - sweep_points: every point of a completed sweep, tagged by sweep,
//     profile and channel
//   - spectrum_stats: scalars derived from spectra (peak wavelength etc.)
//
// Error Handling:
//
// Because writes are asynchronous, failures surface through the
// SetOnError callback rather than return values. Register a callback
// that reports to the status channel.
package influxdb
