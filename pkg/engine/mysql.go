package engine

type mysqlSpec struct{}

// NewMySQLSpec creates the MySQL engine specification.
func NewMySQLSpec() Spec {
	return &mysqlSpec{}
}

// Ensure interface compliance.
var _ Spec = (*mysqlSpec)(nil)

func (s *mysqlSpec) Type() Type {
	return TypeMySQL
}

func (s *mysqlSpec) DefaultImage() string {
	return "mysql:8.0"
}

// DefaultCommand enables LOAD DATA LOCAL INFILE, which MySQL 8 disables
// server-side by default.
func (s *mysqlSpec) DefaultCommand() []string {
	return []string{"--local-infile=1"}
}

func (s *mysqlSpec) DataDir() string {
	return "/var/lib/mysql"
}

func (s *mysqlSpec) Ports() []int {
	return []int{3306}
}

func (s *mysqlSpec) Environment(creds Credentials) map[string]string {
	return map[string]string{
		"MYSQL_ROOT_PASSWORD": creds.Password,
		"MYSQL_DATABASE":      creds.Database,
	}
}

func (s *mysqlSpec) Storage() string {
	return "row"
}
