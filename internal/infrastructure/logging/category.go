package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	IO              Category = "IO"
	Internal        Category = "Internal"
	Room            Category = "Room"
	RabbitMQ        Category = "RabbitMQ"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
	WebSocket       Category = "WebSocket"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	ExternalService SubCategory = "ExternalService"

	// Room
	Join      SubCategory = "Join"
	Leave     SubCategory = "Leave"
	Chat      SubCategory = "Chat"
	Vote      SubCategory = "Vote"
	Broadcast SubCategory = "Broadcast"

	// WebSocket
	Upgrade SubCategory = "Upgrade"
	Read    SubCategory = "Read"
	Write   SubCategory = "Write"

	// RabbitMQ
	Publish SubCategory = "Publish"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ClientIp     ExtraKey = "ClientIp"
	HostIp       ExtraKey = "HostIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	BodySize     ExtraKey = "BodySize"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	RequestBody  ExtraKey = "RequestBody"
	ResponseBody ExtraKey = "ResponseBody"
	ErrorMessage ExtraKey = "ErrorMessage"
	MemberID     ExtraKey = "MemberId"
	MemberName   ExtraKey = "MemberName"
	ConnectionID ExtraKey = "ConnectionId"
	EventType    ExtraKey = "EventType"
	Members      ExtraKey = "Members"
	Generation   ExtraKey = "Generation"
)
