package util

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"log"
	"os"
	"testing"

	"gopkg.in/DATA-DOG/go-sqlmock.v1"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DbConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type PaypalConfig struct {
	ClientId  string `yaml:"client_id"`
	Secret    string `yaml:"secret"`
	WebhookId string `yaml:"webhook_id"`
}

type DodoConfig struct {
	ApiKey        string `yaml:"api_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	// Tier name -> Dodo product id; products are created in the Dodo
	// dashboard, one per tier.
	ProductIds map[string]string `yaml:"product_ids"`
}

type ServerConfig struct {
	Server_port  int          `yaml:"server_port"`
	Site_url     string       `yaml:"site_url"`
	Live_mode    bool         `yaml:"live_mode"`
	Admin_emails []string     `yaml:"admin_emails"`
	Postgres     DbConfig     `yaml:"postgres"`
	Stripe       StripeConfig `yaml:"stripe"`
	Paypal       PaypalConfig `yaml:"paypal"`
	Dodo         DodoConfig   `yaml:"dodo"`
	Jwt_secret   string       `yaml:"jwt_secret"`
}

func (c *ServerConfig) GetConf(fileName string) *ServerConfig {
	yamlFile, err := os.ReadFile(fileName)
	if err != nil {
		log.Printf("Read yaml file %s failed: %s ", fileName, err.Error())
	}
	err = yaml.Unmarshal(yamlFile, c)
	if err != nil {
		log.Fatalf("Unmarshal: %v", err)
	}
	c.applyEnvOverrides()

	return c
}

// applyEnvOverrides lets secrets come from the environment so they stay out
// of the config file in deployed environments.
func (c *ServerConfig) applyEnvOverrides() {
	c.Stripe.SecretKey = getEnv("STRIPE_SECRET_KEY", c.Stripe.SecretKey)
	c.Stripe.WebhookSecret = getEnv("STRIPE_WEBHOOK_SECRET", c.Stripe.WebhookSecret)
	c.Paypal.ClientId = getEnv("PAYPAL_CLIENT_ID", c.Paypal.ClientId)
	c.Paypal.Secret = getEnv("PAYPAL_SECRET", c.Paypal.Secret)
	c.Paypal.WebhookId = getEnv("PAYPAL_WEBHOOK_ID", c.Paypal.WebhookId)
	c.Dodo.ApiKey = getEnv("DODO_API_KEY", c.Dodo.ApiKey)
	c.Dodo.WebhookSecret = getEnv("DODO_WEBHOOK_SECRET", c.Dodo.WebhookSecret)
	c.Jwt_secret = getEnv("AUTH_JWT_SECRET", c.Jwt_secret)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func GetStringPtr(s string) *string {
	return &s
}

func GetIntPtr(i int) *int {
	return &i
}

// DbMock For unit test usage
func DbMock(t *testing.T) (*sql.DB, *gorm.DB, sqlmock.Sqlmock) {
	sqldb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	gormdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqldb,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		t.Fatal(err)
	}

	return sqldb, gormdb, mock
}

// ObjectToRows For unit test usage
func ObjectToRows(object interface{}) (*sqlmock.Rows, error) {
	buf, err := json.Marshal(object)
	if err != nil {
		return nil, err
	}
	rowMap := make(map[string]interface{})
	err = json.Unmarshal(buf, &rowMap)
	if err != nil {
		return nil, err
	}
	columns := make([]string, 0)
	values := make([]driver.Value, 0)
	for k, v := range rowMap {
		columns = append(columns, k)
		values = append(values, v)
	}
	return sqlmock.NewRows(columns).AddRow(values...), nil
}
