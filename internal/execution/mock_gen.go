package execution

//go:generate mockgen -destination=mock_device_test.go -package=execution github.com/birdayz/tilestreams/kdevice Device
