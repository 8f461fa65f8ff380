package opcore

//go:generate go tool mockgen -destination=./mocks/mock_handler.go -package mocks github.com/u-ctf/operator-core Handler
//go:generate go tool mockgen -destination=./mocks/mock_store.go -package mocks github.com/u-ctf/operator-core Store
//go:generate go tool mockgen -destination=./mocks/mock_transport.go -package mocks github.com/u-ctf/operator-core/watch Transport
//go:generate go tool mockgen -destination=./mocks/mock_subscription.go -package mocks github.com/u-ctf/operator-core/watch Subscription
