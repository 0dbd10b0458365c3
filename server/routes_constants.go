package server

// Route path constants
const (
	RouteHome   = "/{$}"
	RouteStatus = "/status"

	// Sign in page the gate redirects anonymous visitors to
	RouteSignIn = "/login"

	// Session
	RouteSession         = "/session"
	RouteSessionLogin    = "/session/login"
	RouteSessionRegister = "/session/register"
	RouteSessionLogout   = "/session/logout"
	RouteSessionRefresh  = "/session/refresh"

	// Role gated views
	RouteDoctorDashboard  = "/dashboard/doctor"
	RoutePatientDashboard = "/dashboard/patient"
	RoutePatients         = "/patients"
	RouteSymptoms         = "/symptoms"

	// Public
	RouteVideos = "/videos"
)
