package server

import (
	"github.com/jrsteele09/go-medapp/gate"
	"github.com/jrsteele09/go-medapp/users"
)

func (s *Server) initRoutes() {
	home := gate.Gate{SignInPath: RouteSignIn, HomePath: "/"}

	s.RegisterRouteFunc("GET "+RouteHome, ChainMiddleware(s.IndexHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteStatus, ChainMiddleware(s.StatusHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteSignIn, ChainMiddleware(s.SignInHandler(), s.APIMiddleware()...))

	// SESSION
	s.RegisterRouteFunc("GET "+RouteSession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteSessionLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteSessionRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteSessionLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteSessionRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))

	// Role gated
	doctors := home
	doctors.Roles = []users.Role{users.RoleDoctor}
	patientsOnly := home
	patientsOnly.Roles = []users.Role{users.RolePatient}

	s.RegisterRouteFunc("GET "+RouteDoctorDashboard, ChainMiddleware(s.DoctorDashboardHandler(), s.GatedMiddleware(doctors)...))
	s.RegisterRouteFunc("GET "+RoutePatientDashboard, ChainMiddleware(s.PatientDashboardHandler(), s.GatedMiddleware(patientsOnly)...))
	s.RegisterRouteFunc("GET "+RoutePatients, ChainMiddleware(s.PatientsHandler(), s.GatedMiddleware(doctors)...))
	s.RegisterRouteFunc("POST "+RouteSymptoms, ChainMiddleware(s.SymptomsHandler(), s.GatedMiddleware(home)...))

	s.RegisterRouteFunc("GET "+RouteVideos, ChainMiddleware(s.VideosHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("OPTIONS /", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
}
