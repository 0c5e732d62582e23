package engine

type clickHouseSpec struct{}

// NewClickHouseSpec creates the ClickHouse engine specification.
func NewClickHouseSpec() Spec {
	return &clickHouseSpec{}
}

// Ensure interface compliance.
var _ Spec = (*clickHouseSpec)(nil)

func (s *clickHouseSpec) Type() Type {
	return TypeClickHouse
}

func (s *clickHouseSpec) DefaultImage() string {
	return "clickhouse/clickhouse-server:latest"
}

func (s *clickHouseSpec) DefaultCommand() []string {
	return nil
}

func (s *clickHouseSpec) DataDir() string {
	return "/var/lib/clickhouse"
}

// Ports returns the HTTP interface and native protocol ports.
func (s *clickHouseSpec) Ports() []int {
	return []int{8123, 9000}
}

// Environment only sets account variables when a password is configured;
// the stock image otherwise starts with a passwordless default user.
func (s *clickHouseSpec) Environment(creds Credentials) map[string]string {
	if creds.Password == "" {
		return nil
	}

	env := map[string]string{
		"CLICKHOUSE_USER":     creds.User,
		"CLICKHOUSE_PASSWORD": creds.Password,
	}

	if creds.Database != "" && creds.Database != "default" {
		env["CLICKHOUSE_DB"] = creds.Database
	}

	return env
}

func (s *clickHouseSpec) Storage() string {
	return "columnar"
}
