package logger

// Component name constants for standardized logging
const (
	// Core components
	ComponentCore    = "Core"
	ComponentMonitor = "Monitor"

	// FSM components
	ComponentServerInstance = "ServerInstance"
	ComponentTracker        = "Tracker"

	// Service components
	ComponentConsoleService = "ConsoleService"
	ComponentSystemdService = "SystemdService"
	ComponentLogTailer      = "LogTailer"
	ComponentEarlyWarning   = "EarlyWarning"
	ComponentSysMetrics     = "SysMetrics"

	// Configuration
	ComponentConfig = "Config"
)
