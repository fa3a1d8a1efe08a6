// Package config loads the nxctl configuration file (HCL).
package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/nuxeo/nuxeo-go-client/pkg/nuxeo"
)

// Config is the root of the nxctl configuration file.
//
//	server {
//	  url        = "https://nuxeo.example.com/nuxeo"
//	  repository = "default"
//	}
//
//	auth {
//	  method   = "basic"
//	  username = "Administrator"
//	  password = "Administrator"
//	}
type Config struct {
	Server *Server `hcl:"server,block"`
	Auth   *Auth   `hcl:"auth,block"`
	Upload *Upload `hcl:"upload,block"`
}

// Server describes the target server.
type Server struct {
	URL        string `hcl:"url"`
	APIPath    string `hcl:"api_path,optional"`
	Repository string `hcl:"repository,optional"`
	TimeoutSec int    `hcl:"timeout_seconds,optional"`
	TLSVerify  *bool  `hcl:"tls_verify,optional"`
}

// Auth selects and configures the authentication method.
type Auth struct {
	Method string `hcl:"method"`

	// basic
	Username string `hcl:"username,optional"`
	Password string `hcl:"password,optional"`

	// token
	Token string `hcl:"token,optional"`

	// jwt
	JWTSecret string `hcl:"jwt_secret,optional"`
	JWTIssuer string `hcl:"jwt_issuer,optional"`
}

// Upload tunes batch uploads.
type Upload struct {
	ChunkSizeMiB int64 `hcl:"chunk_size_mib,optional"`
}

// Load parses the configuration file at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server == nil || c.Server.URL == "" {
		return fmt.Errorf("config requires a server block with a url")
	}
	if c.Auth != nil {
		switch c.Auth.Method {
		case "basic":
			if c.Auth.Username == "" {
				return fmt.Errorf("basic auth requires a username")
			}
		case "token":
			if c.Auth.Token == "" {
				return fmt.Errorf("token auth requires a token")
			}
		case "jwt":
			if c.Auth.JWTSecret == "" {
				return fmt.Errorf("jwt auth requires a jwt_secret")
			}
		case "":
			return fmt.Errorf("auth block requires a method")
		default:
			return fmt.Errorf("unknown auth method %q", c.Auth.Method)
		}
	}
	return nil
}

// ClientConfig converts the file settings into a client configuration.
func (c *Config) ClientConfig() *nuxeo.Config {
	cfg := &nuxeo.Config{
		BaseURL:    c.Server.URL,
		APIPath:    c.Server.APIPath,
		Repository: c.Server.Repository,
		TLSVerify:  c.Server.TLSVerify,
	}
	if c.Server.TimeoutSec > 0 {
		cfg.Timeout = time.Duration(c.Server.TimeoutSec) * time.Second
	}
	if c.Upload != nil && c.Upload.ChunkSizeMiB > 0 {
		cfg.ChunkSize = c.Upload.ChunkSizeMiB * 1024 * 1024
	}
	return cfg
}

// Authenticator builds the authenticator selected by the auth block, nil
// when the file has none (anonymous access).
func (c *Config) Authenticator() nuxeo.Authenticator {
	if c.Auth == nil {
		return nil
	}
	switch c.Auth.Method {
	case "basic":
		return nuxeo.BasicAuth{Username: c.Auth.Username, Password: c.Auth.Password}
	case "token":
		return nuxeo.TokenAuth{Token: c.Auth.Token}
	case "jwt":
		return nuxeo.JWTAuth{
			Secret: []byte(c.Auth.JWTSecret),
			Issuer: c.Auth.JWTIssuer,
		}
	}
	return nil
}
