package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Family Fund API",
        "description": "Assistance cases, disbursements and member dues for a family fund",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Auth", "description": "Login and account self service"},
        {"name": "Users", "description": "Account administration"},
        {"name": "Beneficiaries", "description": "People who can receive assistance"},
        {"name": "Cases", "description": "Assistance case lifecycle and disbursements"},
        {"name": "Members", "description": "Contributing members and monthly dues"},
        {"name": "Reports", "description": "Dashboard, fund balances and exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange credentials for an access token",
                "security": [],
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Token issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current account",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Missing or invalid token"}}
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["Auth"],
                "summary": "Change own password",
                "responses": {"204": {"description": "Changed"}, "403": {"description": "Old password mismatch"}}
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List accounts",
                "parameters": [
                    {"name": "role", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Administrators only"}}
            },
            "post": {
                "tags": ["Users"],
                "summary": "Create an account",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateUserRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Email already registered"}}
            }
        },
        "/users/{id}": {
            "get": {
                "tags": ["Users"],
                "summary": "Get an account",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/beneficiaries": {
            "get": {
                "tags": ["Beneficiaries"],
                "summary": "List beneficiaries",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Beneficiaries"],
                "summary": "Register a beneficiary",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BeneficiaryRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "403": {"description": "Fund managers only"}}
            }
        },
        "/beneficiaries/{id}": {
            "get": {
                "tags": ["Beneficiaries"],
                "summary": "Get a beneficiary",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Beneficiaries"],
                "summary": "Update a beneficiary",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BeneficiaryRequest"}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/cases": {
            "get": {
                "tags": ["Cases"],
                "summary": "List assistance cases",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["pending", "approved", "rejected", "completed"]},
                    {"name": "case_type", "in": "query", "type": "string"},
                    {"name": "beneficiary_id", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "sort", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Cases"],
                "summary": "Submit a case",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitCaseRequest"}}
                ],
                "responses": {"201": {"description": "Submitted as pending"}, "400": {"description": "Validation failed"}}
            }
        },
        "/cases/{id}": {
            "get": {
                "tags": ["Cases"],
                "summary": "Case detail with disbursements and remaining amount",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/cases/{id}/approve": {
            "post": {
                "tags": ["Cases"],
                "summary": "Approve a pending case",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApproveCaseRequest"}}
                ],
                "responses": {"200": {"description": "Approved"}, "409": {"description": "Invalid transition"}}
            }
        },
        "/cases/{id}/reject": {
            "post": {
                "tags": ["Cases"],
                "summary": "Reject a pending case",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Rejected"}, "409": {"description": "Invalid transition"}}
            }
        },
        "/cases/{id}/complete": {
            "post": {
                "tags": ["Cases"],
                "summary": "Close an approved case",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Completed"}, "409": {"description": "Invalid transition"}}
            }
        },
        "/cases/{id}/disbursements": {
            "get": {
                "tags": ["Cases"],
                "summary": "List disbursements of a case",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Cases"],
                "summary": "Record a disbursement against an approved case",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DisbursementRequest"}}
                ],
                "responses": {
                    "201": {"description": "Recorded, completed is true when fully paid"},
                    "409": {"description": "Case is not approved"},
                    "422": {"description": "Amount exceeds the remaining approved amount"}
                }
            }
        },
        "/members": {
            "get": {
                "tags": ["Members"],
                "summary": "List members",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Members"],
                "summary": "Register a member",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateMemberRequest"}}
                ],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/members/{id}": {
            "get": {
                "tags": ["Members"],
                "summary": "Get a member",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/payments": {
            "get": {
                "tags": ["Members"],
                "summary": "List monthly dues",
                "parameters": [
                    {"name": "member_id", "in": "query", "type": "string"},
                    {"name": "fund", "in": "query", "type": "string", "enum": ["takaful", "plus"]},
                    {"name": "status", "in": "query", "type": "string", "enum": ["pending", "paid"]},
                    {"name": "from", "in": "query", "type": "string", "description": "YYYY-MM"},
                    {"name": "to", "in": "query", "type": "string", "description": "YYYY-MM, inclusive"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/payments/{id}/pay": {
            "post": {
                "tags": ["Members"],
                "summary": "Mark a pending due as paid",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Paid"}, "409": {"description": "Already paid"}}
            }
        },
        "/payments/generate": {
            "post": {
                "tags": ["Members"],
                "summary": "Generate pending dues for a month",
                "parameters": [
                    {"name": "body", "in": "body", "schema": {"$ref": "#/definitions/GenerateDuesRequest"}}
                ],
                "responses": {"200": {"description": "Generated"}}
            }
        },
        "/reports/dashboard": {
            "get": {
                "tags": ["Reports"],
                "summary": "Case totals by status",
                "responses": {"200": {"description": "OK, meta.cache_hit reports cache use"}}
            }
        },
        "/reports/cases": {
            "get": {"tags": ["Reports"], "summary": "Case summary by type", "responses": {"200": {"description": "OK"}}}
        },
        "/reports/funds": {
            "get": {"tags": ["Reports"], "summary": "Fund balances", "responses": {"200": {"description": "OK"}}}
        },
        "/reports/monthly": {
            "get": {
                "tags": ["Reports"],
                "summary": "Monthly collected and pending dues",
                "parameters": [{"name": "year", "in": "query", "type": "integer"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/reports/members": {
            "get": {"tags": ["Reports"], "summary": "Per member dues summary", "responses": {"200": {"description": "OK"}}}
        },
        "/reports/reconciliation": {
            "get": {"tags": ["Reports"], "summary": "Compare recorded totals with the disbursement ledger", "responses": {"200": {"description": "OK"}}}
        },
        "/reports/cases/export": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download the case report",
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [{"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "xlsx"]}],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/reports/exports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue an export for background rendering",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {"202": {"description": "Queued"}}
            }
        },
        "/reports/exports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export status and signed download url",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished export",
                "security": [],
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "File"}, "403": {"description": "Invalid or expired link"}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateUserRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 8},
                "full_name": {"type": "string"},
                "role": {"type": "string", "enum": ["SUPERADMIN", "ADMIN", "TREASURER", "MEMBER"]}
            },
            "required": ["email", "password", "full_name", "role"]
        },
        "BeneficiaryRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "phone": {"type": "string"},
                "relationship": {"type": "string"},
                "address": {"type": "string"},
                "notes": {"type": "string"},
                "is_family_member": {"type": "boolean"}
            },
            "required": ["name"]
        },
        "SubmitCaseRequest": {
            "type": "object",
            "properties": {
                "beneficiary_id": {"type": "string"},
                "case_type": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "requested_amount": {"type": "string", "example": "1500.00"}
            },
            "required": ["beneficiary_id", "case_type", "title", "requested_amount"]
        },
        "ApproveCaseRequest": {
            "type": "object",
            "properties": {
                "approved_amount": {"type": "string", "example": "1000.00"}
            },
            "required": ["approved_amount"]
        },
        "DisbursementRequest": {
            "type": "object",
            "properties": {
                "amount": {"type": "string"},
                "disbursement_date": {"type": "string", "format": "date"},
                "payment_method": {"type": "string"},
                "reference_number": {"type": "string"},
                "notes": {"type": "string"}
            },
            "required": ["amount"]
        },
        "CreateMemberRequest": {
            "type": "object",
            "properties": {
                "full_name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "takaful_monthly": {"type": "string"},
                "plus_monthly": {"type": "string"},
                "joined_at": {"type": "string", "format": "date"}
            },
            "required": ["full_name"]
        },
        "GenerateDuesRequest": {
            "type": "object",
            "properties": {
                "month": {"type": "string", "example": "2024-03"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "properties": {
                "report": {"type": "string", "enum": ["cases", "members", "funds", "monthly"]},
                "format": {"type": "string", "enum": ["csv", "pdf", "xlsx"]},
                "year": {"type": "integer"}
            },
            "required": ["report"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
