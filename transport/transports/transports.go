// Package transports imports all built-in audit transports for
// auto-registration with the default registry.
package transports

import (
	_ "github.com/drblury/fedstore/transport/aws"
	_ "github.com/drblury/fedstore/transport/channel"
	_ "github.com/drblury/fedstore/transport/http"
	_ "github.com/drblury/fedstore/transport/io"
	_ "github.com/drblury/fedstore/transport/jetstream"
	_ "github.com/drblury/fedstore/transport/kafka"
	_ "github.com/drblury/fedstore/transport/nats"
	_ "github.com/drblury/fedstore/transport/postgres"
	_ "github.com/drblury/fedstore/transport/rabbitmq"
	_ "github.com/drblury/fedstore/transport/sqlite"
)
