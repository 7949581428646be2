// Package kafka loads source stream data from and publishes sink stream
// data to Kafka topics.
package kafka
