package config

// defaults mirror config/config.yaml so a partial file still boots.
var defaults = map[string]any{
	"app.name":          "phoneauth",
	"app.env":           "development",
	"app.debug":         false,
	"app.node_id":       1,
	"app.max_goroutine": 1000,

	"server.address":                     ":8080",
	"server.timeout.read_seconds":        10,
	"server.timeout.write_seconds":       10,
	"server.timeout.idle_seconds":        60,
	"server.timeout.read_header_seconds": 5,
	"server.timeout.shutdown_seconds":    10,

	"telemetry.enabled":                 false,
	"telemetry.trace_sample_ratio":      1.0,
	"telemetry.metric_interval_seconds": 30,
	"telemetry.log_mask_fields":         "phone,new_phone,to,otp,code,token,refresh_token,access_token",

	"database.auto_migrate": false,
	"redis.db":              0,

	"messaging.driver":              "memory",
	"messaging.memory.buffer":       256,
	"messaging.memory.max_attempts": 5,

	"otp.period_seconds": 30,
	"otp.valid_window":   1,

	"rate_limit.otp.cooldown_seconds": 120,
	"rate_limit.otp.window_seconds":   7200,
	"rate_limit.otp.max_requests":     15,
	"rate_limit.otp.include_ip":       false,

	"jwt.issuer":             "phoneauth",
	"jwt.audiences":          "phoneauth",
	"jwt.access_ttl_minutes": 15,
	"jwt.refresh_ttl_days":   30,

	"modules.identity.cookie.refresh_path": "/api/accounts/auth/",
	"modules.identity.cookie.secure":       false,
	"modules.identity.csrf.enabled":        true,

	"modules.notification.consumer_names":      "otp_dispatch_notification",
	"modules.notification.sms.driver":          "log",
	"modules.notification.sms.sender":          "phoneauth",
	"modules.notification.sms.timeout_seconds": 5,
	"modules.notification.sms.max_retries":     3,

	"modules.notification.sms.templates.auth":         "Your login code is {{.Code}}",
	"modules.notification.sms.templates.change_phone": "Your phone change code is {{.Code}}",
}
