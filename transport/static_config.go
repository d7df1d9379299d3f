package transport

// StaticConfig is a Config backed by plain fields. It is handy for tests and
// for programs that do not use the coordinator's config package.
type StaticConfig struct {
	AuditTransport     string
	KafkaBrokers       []string
	KafkaClientID      string
	RabbitMQURL        string
	NATSURL            string
	HTTPPublisherURL   string
	IOFile             string
	SQLiteFile         string
	PostgresURL        string
	AWSRegion          string
	AWSAccountID       string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSEndpoint        string
}

func (c StaticConfig) GetAuditTransport() string     { return c.AuditTransport }
func (c StaticConfig) GetKafkaBrokers() []string     { return c.KafkaBrokers }
func (c StaticConfig) GetKafkaClientID() string      { return c.KafkaClientID }
func (c StaticConfig) GetRabbitMQURL() string        { return c.RabbitMQURL }
func (c StaticConfig) GetNATSURL() string            { return c.NATSURL }
func (c StaticConfig) GetHTTPPublisherURL() string   { return c.HTTPPublisherURL }
func (c StaticConfig) GetIOFile() string             { return c.IOFile }
func (c StaticConfig) GetSQLiteFile() string         { return c.SQLiteFile }
func (c StaticConfig) GetPostgresURL() string        { return c.PostgresURL }
func (c StaticConfig) GetAWSRegion() string          { return c.AWSRegion }
func (c StaticConfig) GetAWSAccountID() string       { return c.AWSAccountID }
func (c StaticConfig) GetAWSAccessKeyID() string     { return c.AWSAccessKeyID }
func (c StaticConfig) GetAWSSecretAccessKey() string { return c.AWSSecretAccessKey }
func (c StaticConfig) GetAWSEndpoint() string        { return c.AWSEndpoint }
